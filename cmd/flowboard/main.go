package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"flowboard/board"
	"flowboard/cache"
	"flowboard/client"
	"flowboard/domain"
	"flowboard/poll"
)

const usage = `usage: flowboard <command>

commands:
  board                     print the kanban board
  follow                    poll the backend and reprint the board on change
  move <task-id> <status>   drag a task to the end of another column
  add <column> <title...>   create a task in a column
  watch                     poll and print channel messages

environment:
  FLOWBOARD_API_BASE        task backend base URL (required)
  FLOWBOARD_TOKEN           bearer token
  FLOWBOARD_PROJECT         project id filter
  FLOWBOARD_CHANNEL         message channel for watch (default: general)
  REDIS_CONNECTION_STRING   optional task list cache
  CACHE_TTL                 cache entry lifetime (default: 30s)
  POLL_INTERVAL             follow/watch poll interval (default: 5s)
`

type app struct {
	api     *client.Client
	tasks   *cache.TaskCache
	project string
	channel string
	store   *board.Store
	rec     *board.Reconciler
}

func main() {
	_ = godotenv.Load()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	baseURL := os.Getenv("FLOWBOARD_API_BASE")
	if baseURL == "" {
		log.Fatal("FLOWBOARD_API_BASE is not set")
	}

	api := client.New(baseURL, os.Getenv("FLOWBOARD_TOKEN"))

	var rc *redis.Client
	if conn := os.Getenv("REDIS_CONNECTION_STRING"); conn != "" {
		opts, err := redis.ParseURL(conn)
		if err != nil {
			log.Fatalf("invalid REDIS_CONNECTION_STRING: %v", err)
		}
		rc = redis.NewClient(opts)
	}
	ttl := 30 * time.Second
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid CACHE_TTL: %v", err)
		}
		ttl = d
	}

	project := os.Getenv("FLOWBOARD_PROJECT")
	channel := os.Getenv("FLOWBOARD_CHANNEL")
	if channel == "" {
		channel = "general"
	}

	store := board.NewStore()
	a := &app{
		api:     api,
		tasks:   cache.New(api, rc, ttl),
		project: project,
		channel: channel,
		store:   store,
		rec:     board.NewReconciler(store, api.Board(project), log.StandardLogger()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "board":
		err = a.printBoard(ctx)
	case "follow":
		err = a.follow(ctx)
	case "move":
		if len(os.Args) != 4 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = a.move(ctx, os.Args[2], os.Args[3])
	case "add":
		if len(os.Args) < 4 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = a.add(ctx, os.Args[2], strings.Join(os.Args[3:], " "))
	case "watch":
		err = a.watch(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func (a *app) printBoard(ctx context.Context) error {
	tasks, err := a.tasks.AllTasks(ctx, a.project)
	if err != nil {
		return err
	}
	renderBoard(domain.Partition(tasks))
	return nil
}

func renderBoard(b domain.Board) {
	for _, col := range domain.Columns() {
		fmt.Printf("%s (%d)\n", domain.ColumnTitle(col), len(b[col]))
		for _, t := range b[col] {
			line := "  " + t.ID + "  " + t.Title
			if t.Priority != "" {
				line += "  [" + string(t.Priority) + "]"
			}
			fmt.Println(line)
		}
	}
}

// follow keeps the board in sync with the backend, reprinting it whenever the
// fetched state differs from the last one shown.
func (a *app) follow(ctx context.Context) error {
	interval, err := pollInterval()
	if err != nil {
		return err
	}

	var shown domain.Board
	p := &poll.Poller{
		Interval: interval,
		Fetch: func(ctx context.Context) error {
			if err := a.rec.Refresh(ctx); err != nil {
				return err
			}
			b := a.store.Snapshot()
			if reflect.DeepEqual(b, shown) {
				return nil
			}
			shown = b
			renderBoard(b)
			return nil
		},
	}
	p.Run(ctx)
	return nil
}

func (a *app) move(ctx context.Context, taskID, rawStatus string) error {
	to, ok := domain.NormalizeStatus(rawStatus)
	if !ok {
		return fmt.Errorf("unknown status %q", rawStatus)
	}
	if err := a.rec.Refresh(ctx); err != nil {
		return err
	}
	g, err := moveGesture(a.store.Snapshot(), taskID, to)
	if err != nil {
		return err
	}
	if err := a.rec.BeginDrag(taskID); err != nil {
		return err
	}
	outcome, err := a.rec.Drop(ctx, g)
	if err != nil {
		return err
	}
	a.tasks.Invalidate(ctx, a.project)
	fmt.Printf("%s -> %s (%s)\n", taskID, to, outcome)
	return nil
}

// moveGesture builds the drop gesture for moving a task to the end of the
// given column. Moving inside the task's own column keeps its position, so a
// move to the current status settles as a no-op instead of a redundant
// update.
func moveGesture(snap domain.Board, taskID string, to domain.Status) (board.Gesture, error) {
	from, idx, found := snap.Find(taskID)
	if !found {
		return board.Gesture{}, fmt.Errorf("task %q not on the board", taskID)
	}
	toIndex := len(snap[to])
	if from == to {
		toIndex = idx
	}
	return board.Gesture{
		TaskID:    taskID,
		From:      from,
		FromIndex: idx,
		To:        to,
		ToIndex:   toIndex,
	}, nil
}

func (a *app) add(ctx context.Context, rawColumn, title string) error {
	col, ok := domain.NormalizeStatus(rawColumn)
	if !ok {
		return fmt.Errorf("unknown column %q", rawColumn)
	}
	task, err := a.rec.Create(ctx, col, title, "")
	if err != nil {
		return err
	}
	a.tasks.Invalidate(ctx, a.project)
	fmt.Printf("created %s in %s\n", task.ID, col)
	return nil
}

func pollInterval() (time.Duration, error) {
	v := os.Getenv("POLL_INTERVAL")
	if v == "" {
		return 5 * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid POLL_INTERVAL: %v", err)
	}
	return d, nil
}

func (a *app) watch(ctx context.Context) error {
	interval, err := pollInterval()
	if err != nil {
		return err
	}

	lastID := ""
	p := &poll.Poller{
		Interval: interval,
		Fetch: func(ctx context.Context) error {
			msgs, err := a.api.ListMessages(ctx, a.channel, lastID)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Printf("%s %s: %s\n", m.SentAt.Local().Format("15:04:05"), m.Author, m.Body)
				lastID = m.ID
			}
			return nil
		},
	}
	p.Run(ctx)
	return nil
}

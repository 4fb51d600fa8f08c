// gen-token prints an HS256 test token accepted by the stub server's
// shared-secret auth mode.
package main

import (
	"flag"
	"fmt"
	"os"

	"flowboard/internal/testutil"
)

func main() {
	user := flag.String("user", "local-user", "subject claim for the token")
	flag.Parse()

	secret := os.Getenv("AUTH_SHARED_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "AUTH_SHARED_SECRET must be set")
		os.Exit(1)
	}
	tok, err := testutil.TestToken(*user, []byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

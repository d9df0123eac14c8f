// Command gogate-keygen prints a fresh cookie system key for the
// cookie.system_key setting.
package main

import (
	"fmt"
	"os"

	goGate "github.com/MrEthical07/goGate"
)

func main() {
	key, err := goGate.GenerateSystemKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate system key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(key)
}

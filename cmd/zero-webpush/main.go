package main

import "github.com/gematik/zero-webpush/cmd/zero-webpush/cmd"

func main() {
	cmd.Execute()
}

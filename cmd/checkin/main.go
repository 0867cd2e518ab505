package main

import "github.com/vietddude/checkin/internal/cli"

func main() {
	cli.Execute()
}

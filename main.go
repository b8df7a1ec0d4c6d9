package main

import (
	"github.com/luma/sci/cmd"
)

func main() {
	cmd.Execute()
}

package main

import "github.com/andresmejia3/facegate/cmd"

func main() {
	cmd.Execute()
}

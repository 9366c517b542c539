package main

import "github.com/Rezzyman/WINNSTORM-sub000/cmd"

func main() {
	cmd.Execute()
}

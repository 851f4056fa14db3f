package main

import "github.com/ValentinKolb/dRing/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/coredex-source/Cryovex-Launcher/cmd/cryoauth/cmd"

func main() {
	cmd.Execute()
}

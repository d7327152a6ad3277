package main

import "kube-topology/cmd"

func main() {
	cmd.Execute()
}

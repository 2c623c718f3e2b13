/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/Lucas-Zerino/grows-gateway/cmd"

func main() {
	cmd.Execute()
}

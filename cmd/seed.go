/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/Lucas-Zerino/grows-gateway/internal/bootstrap"
	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/spf13/cobra"
)

var seedCompanies int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo companies and provider instances",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		if err := bootstrap.Seed(cmd.Context(), cfg, seedCompanies); err != nil {
			fmt.Fprintln(os.Stderr, "seed error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCompanies, "companies", 3, "number of demo companies to create")
	rootCmd.AddCommand(seedCmd)
}

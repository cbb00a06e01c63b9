package cmd

import (
	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

func printBanner() {
	fig := figure.NewColorFigure("VPNSENSE", "doom", "cyan", true)
	fig.Print()

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	_, _ = cyan.Println("════════════════════════════════════════════════")
	_, _ = green.Println("    VPN / proxy heuristic detector")
	_, _ = cyan.Println("════════════════════════════════════════════════")
}

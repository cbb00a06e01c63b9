package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gokaycavdar/go-vpnsense/pkg/config"
	"github.com/gokaycavdar/go-vpnsense/pkg/detector"
	"github.com/gokaycavdar/go-vpnsense/pkg/models"
	"github.com/gokaycavdar/go-vpnsense/pkg/output"
)

var (
	detectJSON      bool
	detectOutput    string
	detectThreshold int
	detectNoWebRTC  bool
	detectNoBanner  bool
	detectFailOnVPN bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run all probes from this machine and print the verdict",
	RunE:  runDetect,
}

func init() {
	f := detectCmd.Flags()
	f.BoolVar(&detectJSON, "json", false, "print the verdict as JSON")
	f.StringVarP(&detectOutput, "output", "o", "", "append the verdict to a JSONL file")
	f.IntVar(&detectThreshold, "threshold", 0, "override the detection threshold")
	f.BoolVar(&detectNoWebRTC, "no-webrtc", false, "treat peer connectivity as unavailable")
	f.BoolVar(&detectNoBanner, "no-banner", false, "do not print the banner")
	f.BoolVar(&detectFailOnVPN, "fail-on-vpn", false, "exit with status 2 when a VPN is detected")
}

func runDetect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if detectThreshold > 0 {
		cfg.Threshold = detectThreshold
	}
	if detectNoWebRTC {
		cfg.Probes.WebRTC.Enabled = false
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	geo, err := openGeo(cfg)
	if err != nil {
		return err
	}
	var ann detector.Annotations
	if geo != nil {
		defer geo.Close()
		ann.ASN = geo
	}

	proxies, err := openProxyList(cfg, logger)
	if err != nil {
		return err
	}
	if proxies != nil {
		ann.Proxies = proxies
	}

	history, release, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	d, err := detector.NewHost(cfg, logger, ann)
	if err != nil {
		return err
	}
	if history != nil {
		d.WithHistory(history)
	}

	if !detectJSON && !detectNoBanner {
		printBanner()
		fmt.Println()
	}

	v := d.Detect(ctx)

	if detectOutput != "" {
		if err := appendJSONL(detectOutput, v); err != nil {
			return err
		}
	}

	if detectJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return err
		}
	} else {
		printVerdict(cfg, v)
	}

	if detectFailOnVPN && v.IsVPN {
		return errVPNDetected
	}
	return nil
}

func appendJSONL(path string, v *models.Verdict) error {
	w, err := output.OpenJSONL(path)
	if err != nil {
		return err
	}
	if err := w.Write(v); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return w.Close()
}

func printVerdict(cfg config.Config, v *models.Verdict) {
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	red := color.New(color.FgRed, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	for _, r := range v.Results {
		scoreColor := green
		if r.Score > 0 {
			scoreColor = yellow
		}
		_, _ = bold.Printf("  %-12s", r.Probe)
		_, _ = scoreColor.Printf("%4d  ", r.Score)
		fmt.Println(r.Reason())
		if r.Error != "" {
			_, _ = dim.Printf("  %-12s      error: %s\n", "", r.Error)
		}
		printDetails(dim, r.Details)
	}

	fmt.Println()
	_, _ = bold.Printf("  total %d / threshold %d  ", v.TotalScore, cfg.Threshold)
	if v.IsVPN {
		_, _ = red.Println("VPN/PROXY DETECTED")
	} else {
		_, _ = green.Println("NO VPN DETECTED")
	}
	_, _ = dim.Printf("  id %s, %dms\n", v.ID, v.DurationMs)
}

func printDetails(c *color.Color, details map[string]any) {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = c.Printf("  %-12s      %s: %v\n", "", k, details[k])
	}
}

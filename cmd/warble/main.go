package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/warblehq/warble/internal/config"
	"github.com/warblehq/warble/internal/orchestrator"
	"github.com/warblehq/warble/internal/scanner"
	"github.com/warblehq/warble/internal/schedule"
)

var rootCmd = &cobra.Command{
	Use:   "warble",
	Short: "warble - scheduled engagement engine",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the full engine (scheduler + executor + keyword scanner)",
	RunE:  runEngine,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directory",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show warble status",
	RunE:  runStatus,
}

var executeCmd = &cobra.Command{
	Use:   "execute <profile-id> <action> <post-url>",
	Short: "Run a targeted action on a specific post right now",
	Args:  cobra.ExactArgs(3),
	RunE:  runExecute,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one keyword scan cycle",
	RunE:  runScan,
}

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage tracked keywords",
}

var keywordsAddCmd = &cobra.Command{
	Use:   "add <keyword>",
	Short: "Track a keyword",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeywordsAdd,
}

var keywordsRemoveCmd = &cobra.Command{
	Use:   "remove <keyword>",
	Short: "Stop tracking a keyword",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeywordsRemove,
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked keywords and recent alerts",
	RunE:  runKeywordsList,
}

var (
	commentFlag string
	keywordFlag string
)

func init() {
	executeCmd.Flags().StringVarP(&commentFlag, "comment", "c", "", "Comment text (skips generation)")
	executeCmd.Flags().StringVarP(&keywordFlag, "keyword", "k", "", "Keyword that surfaced this post")
	keywordsCmd.AddCommand(keywordsAddCmd, keywordsRemoveCmd, keywordsListCmd)
	rootCmd.AddCommand(runCmd, onboardCmd, statusCmd, executeCmd, scanCmd, keywordsCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildOrchestrator() (*orchestrator.Orchestrator, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Provisioner.BaseURL == "" {
		return nil, fmt.Errorf("provisioner URL not set. Run 'warble onboard' or set WARBLE_PROVISIONER_URL")
	}
	if cfg.Reply.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key not set. Set GEMINI_API_KEY or WARBLE_GEMINI_API_KEY")
	}
	return orchestrator.New(cfg)
}

func runEngine(cmd *cobra.Command, args []string) error {
	o, err := buildOrchestrator()
	if err != nil {
		return err
	}
	return o.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, _ := config.LoadConfig()
	if _, err := os.Stat(cfg.Storage.RosterPath); os.IsNotExist(err) {
		if err := os.WriteFile(cfg.Storage.RosterPath, []byte(defaultRoster), 0644); err != nil {
			return fmt.Errorf("write roster: %w", err)
		}
		fmt.Printf("Created roster template: %s\n", cfg.Storage.RosterPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s with your account profiles\n", cfg.Storage.RosterPath)
	fmt.Printf("  2. Edit %s to set service URLs, or export WARBLE_PROVISIONER_URL / WARBLE_SCANNER_URL\n", cfgPath)
	fmt.Println("  3. Export GEMINI_API_KEY")
	fmt.Println("  4. Run 'warble run' to start the engine")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Data dir: %s\n", cfg.Storage.DataDir)
	fmt.Printf("Reply model: %s\n", cfg.Reply.Model)
	if cfg.Reply.APIKey != "" && len(cfg.Reply.APIKey) > 8 {
		masked := cfg.Reply.APIKey[:4] + "..." + cfg.Reply.APIKey[len(cfg.Reply.APIKey)-4:]
		fmt.Printf("Gemini key: %s\n", masked)
	} else if cfg.Reply.APIKey != "" {
		fmt.Println("Gemini key: set")
	} else {
		fmt.Println("Gemini key: not set")
	}
	fmt.Printf("Telegram: enabled=%v\n", cfg.Telegram.Enabled)

	o, err := buildOrchestrator()
	if err != nil {
		fmt.Printf("Engine: not ready (%v)\n", err)
		return nil
	}
	defer o.Ledger().Close()

	st, err := o.Status()
	if err != nil {
		fmt.Printf("Status: error (%v)\n", err)
		return nil
	}
	fmt.Printf("Profiles: %d\n", st.Profiles)
	if st.Sessions > 0 {
		fmt.Printf("Schedule: %d sessions (%d completed, %d failed), ends %s\n",
			st.Sessions, st.Completed, st.Failed, st.ScheduleEnds.Format(time.RFC822))
		if st.NextSession != nil {
			fmt.Printf("Next: %s %s at %s\n", st.NextSession.ProfileID,
				st.NextSession.Action, st.NextSession.ScheduledAt.Format("15:04:05"))
		}
	} else {
		fmt.Println("Schedule: none (generated on first run)")
	}
	fmt.Printf("Scans: %d runs, %d alerts\n", st.Scan.Scans, st.Scan.TotalAlerts)
	fmt.Printf("Engagements: %d total (%d likes, %d reshares, %d comments, %d failures)\n",
		st.Engagements.Total, st.Engagements.Likes, st.Engagements.Reshares,
		st.Engagements.Comments, st.Engagements.Failures)
	return nil
}

func runExecute(cmd *cobra.Command, args []string) error {
	profileID, actionArg, postURL := args[0], args[1], args[2]

	var action schedule.Action
	switch actionArg {
	case "like":
		action = schedule.ActionLike
	case "reshare":
		action = schedule.ActionReshare
	case "comment":
		action = schedule.ActionComment
	default:
		return fmt.Errorf("unknown action %q (want like, reshare, or comment)", actionArg)
	}

	o, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer o.Ledger().Close()

	res, err := o.ExecutePost(context.Background(), profileID, action, postURL, commentFlag, keywordFlag)
	if err != nil {
		return err
	}
	fmt.Printf("Outcome: %s\n", res.Outcome)
	if res.CommentText != "" {
		fmt.Printf("Comment: %s\n", res.CommentText)
	}
	if res.ReplyRef != "" {
		fmt.Printf("Reply: %s\n", res.ReplyRef)
	}
	return nil
}

// buildScanner wires the keyword scanner on its own; keyword management
// and manual scans do not need the browser engine or reply client.
func buildScanner() (*scanner.Scanner, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	s := scanner.New(scanner.NewHTTPJobClient(cfg.Scanner.BaseURL, cfg.Scanner.Token),
		scanner.NewStore(cfg.ScannerStatePath()), true)
	s.SetResultLimit(cfg.Scanner.ResultLimit)
	return s, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	s, err := buildScanner()
	if err != nil {
		return err
	}
	added, err := s.Scan(context.Background())
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	fmt.Printf("Scan complete: %d new alert(s)\n", added)
	return nil
}

func runKeywordsAdd(cmd *cobra.Command, args []string) error {
	s, err := buildScanner()
	if err != nil {
		return err
	}
	if err := s.AddKeyword(args[0]); err != nil {
		return err
	}
	fmt.Printf("Tracking %q\n", args[0])
	return nil
}

func runKeywordsRemove(cmd *cobra.Command, args []string) error {
	s, err := buildScanner()
	if err != nil {
		return err
	}
	if err := s.RemoveKeyword(args[0]); err != nil {
		return err
	}
	fmt.Printf("Stopped tracking %q\n", args[0])
	return nil
}

func runKeywordsList(cmd *cobra.Command, args []string) error {
	s, err := buildScanner()
	if err != nil {
		return err
	}

	keywords := s.Keywords()
	if len(keywords) == 0 {
		fmt.Println("No keywords tracked")
		return nil
	}
	fmt.Println("Keywords:")
	for _, k := range keywords {
		fmt.Printf("  %s\n", k)
	}

	alerts, stats := s.Snapshot(0, 10)
	fmt.Printf("\n%d alert(s) total, %d scan(s)\n", stats.TotalAlerts, stats.Scans)
	for _, a := range alerts {
		fmt.Printf("  [%s] %s %s\n", a.Keyword, a.URL, a.Status)
	}
	return nil
}

const defaultRoster = `[
  {
    "id": "p1",
    "accountRef": "pool-account-1",
    "persona": "Curious tech reader who asks short, pointed questions.",
    "active": true
  }
]
`

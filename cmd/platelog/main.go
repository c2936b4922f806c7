package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"platelog/internal/app"
	"platelog/internal/config"
	"platelog/internal/credential"
	"platelog/internal/model"
	"platelog/internal/review"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a PlateApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "AddRecord", "Login").
func newApp(ctx context.Context, operation string) (*app.PlateApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewPlateApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on the terminal, or takes PLATELOG_PASSPHRASE when
// set for non-interactive use. The passphrase never hits argv.
func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv("PLATELOG_PASSPHRASE"); p != "" {
		return p, nil
	}

	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(raw), nil
}

func printCollection(col model.Collection) {
	if len(col) == 0 {
		fmt.Println("No reviews recorded.")
		return
	}

	for i, rec := range col {
		img := ""
		if rec.Image != "" {
			img = "  [photo]"
		}
		fmt.Printf("#%d  %s — %s  $%s  T%d X%d S%d V%d  %s%s\n",
			i,
			rec.Restaurant,
			rec.FoodItem,
			rec.Price.String(),
			rec.Ratings.Taste,
			rec.Ratings.Texture,
			rec.Ratings.Size,
			rec.Ratings.Value,
			rec.Timestamp,
			img,
		)
	}
}

var rootCmd = &cobra.Command{
	Use:   "platelog",
	Short: "Personal food review log backed by a Git repository",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		repo, _ := cmd.Flags().GetString("repo")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(owner, repo, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Remote:   %s/%s\n", owner, repo)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Remote:     %s/%s (branch %s)\n", cfg.Remote.Owner, cfg.Remote.Repo, cfg.Remote.Branch)
		fmt.Printf("Collection: %s\n", cfg.Remote.CollectionPath)
		fmt.Printf("Media Dir:  %s\n", cfg.Remote.MediaDir)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		return nil
	},
}

var configCredentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage the encrypted credential blob",
}

var configCredentialWrapCmd = &cobra.Command{
	Use:   "wrap FILE",
	Short: "Encrypt an access token into a credential blob",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		fmt.Fprint(os.Stderr, "Access token: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		token := strings.TrimSpace(string(raw))

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if passphrase == "" {
			return fmt.Errorf("passphrase must not be empty")
		}

		var blob []byte
		switch format {
		case "xor":
			blob, err = credential.WrapXOR(token, passphrase)
		case "age":
			blob, err = credential.WrapAge(token, passphrase)
		default:
			return fmt.Errorf("unknown format: %s", format)
		}
		if err != nil {
			return fmt.Errorf("wrapping credential: %w", err)
		}

		if err := os.WriteFile(args[0], blob, 0600); err != nil {
			return fmt.Errorf("writing blob: %w", err)
		}

		fmt.Printf("Credential blob written to %s\n", args[0])
		return nil
	},
}

// login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Unlock the stored credential and verify remote access",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx, "Login")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		col, err := a.Login(ctx, passphrase)
		if err != nil {
			return err
		}

		fmt.Printf("Logged in. %d review(s) on record.\n", len(col))
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx, "List")
		if err != nil {
			return err
		}
		defer a.Close()

		col, err := a.List(ctx)
		if err != nil {
			return err
		}

		printCollection(col)
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a review",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		input := review.NewRecord{}
		input.Restaurant, _ = cmd.Flags().GetString("restaurant")
		input.FoodItem, _ = cmd.Flags().GetString("item")
		input.Price, _ = cmd.Flags().GetString("price")
		input.Taste, _ = cmd.Flags().GetInt("taste")
		input.Texture, _ = cmd.Flags().GetInt("texture")
		input.Size, _ = cmd.Flags().GetInt("size")
		input.Value, _ = cmd.Flags().GetInt("value")
		input.EL, _ = cmd.Flags().GetBool("el")
		input.AG, _ = cmd.Flags().GetBool("ag")
		input.ImagePath, _ = cmd.Flags().GetString("image")

		a, err := newApp(ctx, "AddRecord")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if _, err := a.Login(ctx, passphrase); err != nil {
			return err
		}

		rec, err := a.AddRecord(ctx, input)
		if err != nil {
			return fmt.Errorf("adding review: %w", err)
		}

		fmt.Printf("Added %s — %s ($%s)\n", rec.Restaurant, rec.FoodItem, rec.Price.String())
		if rec.Image != "" {
			fmt.Printf("Photo uploaded as %s\n", rec.Image)
		}
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete INDEX",
	Short: "Delete a review by its list index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[0])
		}

		a, err := newApp(ctx, "DeleteRecord")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if _, err := a.Login(ctx, passphrase); err != nil {
			return err
		}

		if err := a.DeleteRecord(ctx, index); err != nil {
			return fmt.Errorf("deleting review: %w", err)
		}

		fmt.Printf("Deleted review #%d\n", index)
		return nil
	},
}

// image command
var imageCmd = &cobra.Command{
	Use:   "image REF",
	Short: "Download a review photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		out, _ := cmd.Flags().GetString("output")

		a, err := newApp(ctx, "FetchImage")
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := a.FetchImage(ctx, args[0])
		if err != nil {
			return err
		}

		if out == "" {
			out = args[0][strings.LastIndex(args[0], "/")+1:]
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("writing image: %w", err)
		}

		fmt.Printf("Wrote %d bytes to %s\n", len(data), out)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(ctx, "History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if !op.FinishedAt.IsZero() {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("%-12s  %s  %-8s  %s\n",
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("owner", "", "Repository owner")
	configInitCmd.Flags().String("repo", "", "Repository name")
	configInitCmd.MarkFlagRequired("owner")
	configInitCmd.MarkFlagRequired("repo")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configCredentialCmd)
	configCredentialCmd.AddCommand(configCredentialWrapCmd)
	configCredentialWrapCmd.Flags().String("format", "xor", "Blob format: xor or age")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().String("restaurant", "", "Restaurant name")
	addCmd.Flags().String("item", "", "Food item")
	addCmd.Flags().String("price", "", "Price, e.g. 12.50")
	addCmd.Flags().Int("taste", 0, "Taste rating 1-10")
	addCmd.Flags().Int("texture", 0, "Texture rating 1-10")
	addCmd.Flags().Int("size", 0, "Portion size rating 1-10")
	addCmd.Flags().Int("value", 0, "Value rating 1-10")
	addCmd.Flags().Bool("el", false, "Set the EL flag")
	addCmd.Flags().Bool("ag", false, "Set the AG flag")
	addCmd.Flags().String("image", "", "Path to a photo to attach")
	addCmd.MarkFlagRequired("restaurant")
	addCmd.MarkFlagRequired("item")
	addCmd.MarkFlagRequired("price")
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(imageCmd)
	imageCmd.Flags().StringP("output", "o", "", "Output file (defaults to the artifact name)")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}

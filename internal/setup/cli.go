package setup

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pharmacy-mcp-server/internal/config"
	"github.com/pharmacy-mcp-server/internal/history"
)

// CLI drives the interactive setup commands.
type CLI struct {
	ServerType string // "lite" or "full"
	reader     *bufio.Reader
}

// NewCLI creates a setup CLI.
func NewCLI(serverType string) *CLI {
	return &CLI{
		ServerType: serverType,
		reader:     bufio.NewReader(os.Stdin),
	}
}

// Run dispatches a setup subcommand.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "claude-desktop":
		return c.setupClaudeDesktop(args[1:])
	case "status":
		return c.showStatus()
	case "validate":
		return c.validate()
	case "export":
		return c.exportHistory(args[1:])
	case "import":
		return c.importHistory(args[1:])
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		return c.showHelp()
	}
}

func (c *CLI) showHelp() error {
	fmt.Println(`
Pharmacy MCP Server Setup

Usage:
  mcp-server-lite setup <command> [options]

Commands:
  claude-desktop  Configure Claude Desktop integration
  status          Show current setup status
  validate        Validate current configuration
  export          Export the order history as JSON
  import          Import order history records from a JSON file

Examples:
  # Configure Claude Desktop with auto-detection
  mcp-server-lite setup claude-desktop

  # Configure with specific binary and data directory
  mcp-server-lite setup claude-desktop --binary /usr/local/bin/mcp-server-lite --data-dir ~/.pharmacy-mcp

  # Check current setup status
  mcp-server-lite setup status

  # Export the order history to the data directory's exports folder
  mcp-server-lite setup export

  # Import a previous export
  mcp-server-lite setup import ~/.pharmacy-mcp/exports/orders-20260115-120000.json`)
	return nil
}

func (c *CLI) setupClaudeDesktop(args []string) error {
	opts := SetupOptions{ServerType: c.ServerType}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--binary", "-b":
			if i+1 < len(args) {
				opts.BinaryPath = args[i+1]
				i++
			}
		case "--data-dir", "-d":
			if i+1 < len(args) {
				opts.DataDir = args[i+1]
				i++
			}
		case "--auto", "-y":
			opts.AutoConfirm = true
		}
	}

	if opts.BinaryPath == "" {
		if execPath, err := os.Executable(); err == nil {
			opts.BinaryPath = execPath
		}
	}

	configPath, _ := GetClaudeDesktopConfigPath()
	fmt.Println("Claude Desktop Configuration")
	fmt.Println("============================")
	fmt.Printf("Config file: %s\n", configPath)
	fmt.Printf("Server binary: %s\n", opts.BinaryPath)
	if opts.DataDir != "" {
		fmt.Printf("Data directory: %s\n", opts.DataDir)
	}
	fmt.Println()

	if !opts.AutoConfirm {
		fmt.Print("Proceed with configuration? [Y/n]: ")
		response, _ := c.reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			fmt.Println("Configuration cancelled.")
			return nil
		}
	}

	if err := ConfigureClaudeDesktop(opts); err != nil {
		return fmt.Errorf("failed to configure Claude Desktop: %w", err)
	}

	fmt.Println()
	fmt.Println("Claude Desktop configured successfully.")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Restart Claude Desktop to load the new configuration")
	fmt.Println("  2. Ask Claude: \"What MCP tools do you have available?\"")
	fmt.Println("  3. Try: \"Validate an order for vancomycin 1000mg IV Q12H\"")

	return nil
}

func (c *CLI) showStatus() error {
	status, err := GetStatus(c.ServerType)
	if err != nil {
		return err
	}

	fmt.Println("Pharmacy MCP Server Status")
	fmt.Println("==========================")
	fmt.Println()

	fmt.Println("Claude Desktop:")
	fmt.Printf("  Config path: %s\n", status.ClaudeDesktopPath)
	if status.ClaudeDesktopConfigured {
		fmt.Println("  Status: configured")
	} else {
		fmt.Println("  Status: not configured")
	}
	fmt.Println()

	fmt.Println("Server:")
	if status.ServerConfigured {
		fmt.Printf("  Binary: %s\n", status.ServerPath)
		if _, err := os.Stat(status.ServerPath); err == nil {
			fmt.Println("  Status: found")
		} else {
			fmt.Println("  Status: binary not found")
		}
	} else {
		fmt.Println("  Status: not configured")
	}
	fmt.Println()

	fmt.Println("Data Directory:")
	fmt.Printf("  Path: %s\n", status.DataDir)
	if _, err := os.Stat(status.DataDir); err == nil {
		fmt.Println("  Status: exists")

		historyDB := filepath.Join(status.DataDir, "history.db")
		if _, err := os.Stat(historyDB); err == nil {
			fmt.Println("  Order history DB: present")
		} else {
			fmt.Println("  Order history DB: not created yet")
		}
	} else {
		fmt.Println("  Status: will be created on first run")
	}

	if len(status.Issues) > 0 {
		fmt.Println()
		fmt.Println("Issues:")
		for _, issue := range status.Issues {
			fmt.Printf("  - %s\n", issue)
		}
	}

	return nil
}

// exportHistory writes the order history to a JSON file. Without --output
// the file lands in the data directory's exports folder, timestamped.
func (c *CLI) exportHistory(args []string) error {
	var output string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--output", "-o":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		}
	}

	cfg := config.LoadLiteConfig()
	if _, err := os.Stat(cfg.HistoryDBPath()); err != nil {
		return fmt.Errorf("no order history database at %s", cfg.HistoryDBPath())
	}

	store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
	if err != nil {
		return fmt.Errorf("failed to open order history: %w", err)
	}
	defer store.Close()

	if output == "" {
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
		output = filepath.Join(cfg.ExportDir(),
			time.Now().Format("orders-20060102-150405")+".json")
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := history.ExportJSON(context.Background(), store, f); err != nil {
		f.Close()
		return fmt.Errorf("export failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	fmt.Printf("Order history exported to %s\n", output)
	return nil
}

// importHistory loads order records from a JSON export into the history
// database.
func (c *CLI) importHistory(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: setup import <file>")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	cfg := config.LoadLiteConfig()
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
	if err != nil {
		return fmt.Errorf("failed to open order history: %w", err)
	}
	defer store.Close()

	n, err := history.ImportJSON(context.Background(), store, f)
	if err != nil {
		return fmt.Errorf("import failed after %d records: %w", n, err)
	}

	fmt.Printf("Imported %d order records into %s\n", n, cfg.HistoryDBPath())
	return nil
}

func (c *CLI) validate() error {
	fmt.Println("Validating configuration...")
	fmt.Println()

	valid, issues := Validate(c.ServerType)
	if valid {
		fmt.Println("Configuration is valid.")
	} else {
		fmt.Println("Configuration has issues:")
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
	}
	return nil
}

// Package setup configures Claude Desktop integration for the pharmacy MCP
// server and reports on the local installation state.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// serverName is the key used in the Claude Desktop mcpServers map.
const serverName = "pharmacy-decision-support"

// ClaudeDesktopConfig mirrors the Claude Desktop configuration file.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// MCPServerConfig is a single MCP server entry.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// SetupOptions controls the configuration process.
type SetupOptions struct {
	ServerType  string // "lite" or "full"
	BinaryPath  string
	DataDir     string
	AutoConfirm bool
}

// GetClaudeDesktopConfigPath returns the platform path of Claude Desktop's
// configuration file.
func GetClaudeDesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClaudeDesktopConfig loads the existing configuration, returning an
// empty one when the file does not exist yet.
func LoadClaudeDesktopConfig(configPath string) (*ClaudeDesktopConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ClaudeDesktopConfig{
				MCPServers: make(map[string]MCPServerConfig),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ClaudeDesktopConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]MCPServerConfig)
	}
	return &config, nil
}

// SaveClaudeDesktopConfig writes the configuration back to disk.
func SaveClaudeDesktopConfig(configPath string, config *ClaudeDesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigureClaudeDesktop registers or updates the pharmacy server entry in
// the Claude Desktop configuration.
func ConfigureClaudeDesktop(opts SetupOptions) error {
	configPath, err := GetClaudeDesktopConfigPath()
	if err != nil {
		return err
	}

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		binaryPath, err = findBinary(opts.ServerType)
		if err != nil {
			return fmt.Errorf("could not find server binary: %w", err)
		}
	}

	serverConfig := MCPServerConfig{
		Command: binaryPath,
		Env:     make(map[string]string),
	}
	if opts.DataDir != "" {
		serverConfig.Env["PHARMACY_DATA_DIR"] = opts.DataDir
	}

	config.MCPServers[serverName] = serverConfig

	return SaveClaudeDesktopConfig(configPath, config)
}

// findBinary looks for the server binary on PATH and in common locations.
func findBinary(serverType string) (string, error) {
	binaryName := "mcp-server-lite"
	if serverType == "full" {
		binaryName = "mcp-server"
	}

	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + binaryName,
		"./build/" + binaryName,
		filepath.Join(os.Getenv("HOME"), ".local", "bin", binaryName),
		"/usr/local/bin/" + binaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if absPath, err := filepath.Abs(loc); err == nil {
				return absPath, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", binaryName)
}

// Status describes the current installation.
type Status struct {
	ClaudeDesktopConfigured bool
	ClaudeDesktopPath       string
	ServerConfigured        bool
	ServerPath              string
	DataDir                 string
	Issues                  []string
}

// GetStatus inspects the Claude Desktop configuration and data directory.
func GetStatus(serverType string) (*Status, error) {
	status := &Status{}

	configPath, err := GetClaudeDesktopConfigPath()
	if err != nil {
		status.Issues = append(status.Issues, err.Error())
	} else {
		status.ClaudeDesktopPath = configPath
		if config, err := LoadClaudeDesktopConfig(configPath); err == nil {
			if serverConfig, ok := config.MCPServers[serverName]; ok {
				status.ClaudeDesktopConfigured = true
				status.ServerConfigured = true
				status.ServerPath = serverConfig.Command
				if dataDir, ok := serverConfig.Env["PHARMACY_DATA_DIR"]; ok {
					status.DataDir = dataDir
				}
			}
		}
	}

	if status.DataDir == "" {
		status.DataDir = GetDefaultDataDir()
	}

	return status, nil
}

// Validate checks the configuration and reports blocking issues.
func Validate(serverType string) (bool, []string) {
	var issues []string

	configPath, err := GetClaudeDesktopConfigPath()
	if err != nil {
		return false, []string{err.Error()}
	}

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return false, []string{fmt.Sprintf("cannot read Claude Desktop config: %v", err)}
	}

	serverConfig, ok := config.MCPServers[serverName]
	if !ok {
		return false, []string{"pharmacy decision support server not configured in Claude Desktop"}
	}

	if _, err := os.Stat(serverConfig.Command); err != nil {
		issues = append(issues, fmt.Sprintf("server binary not found: %s", serverConfig.Command))
	}

	dataDir := serverConfig.Env["PHARMACY_DATA_DIR"]
	if dataDir == "" {
		dataDir = GetDefaultDataDir()
	}
	if _, err := os.Stat(dataDir); err != nil {
		// The server creates it on first run.
		issues = append(issues, fmt.Sprintf("data directory does not exist yet: %s", dataDir))
	}

	return len(issues) == 0, issues
}

// GetDefaultDataDir returns the default lite server data directory.
func GetDefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pharmacy-mcp")
}

// EnsureDataDir creates the data directory when missing.
func EnsureDataDir(dataDir string) error {
	return os.MkdirAll(dataDir, 0755)
}

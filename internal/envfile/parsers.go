package envfile

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jenian/envinject/internal/variables"
)

type fileType string

const (
	fileTypeEnv     fileType = "env"
	fileTypeEnvrc   fileType = "envrc"
	fileTypeCompose fileType = "docker-compose"
	fileTypeK8s     fileType = "k8s"
	fileTypeSystemd fileType = "systemd"
	fileTypeShell   fileType = "shell"
)

var (
	exportLine      = regexp.MustCompile(`^\s*export\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*)$`)
	environmentLine = regexp.MustCompile(`^\s*Environment\s*=\s*(.+)$`)
)

// detectFileType determines the type of environment file based on its name
func detectFileType(path string) fileType {
	filename := filepath.Base(path)
	isYAML := strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")

	switch {
	case filename == ".envrc":
		return fileTypeEnvrc
	case isDotEnvName(filename):
		return fileTypeEnv
	case strings.HasPrefix(filename, "docker-compose.") || strings.HasPrefix(filename, "compose."):
		return fileTypeCompose
	case isYAML && (strings.Contains(filename, "configmap") || strings.Contains(filename, "secret")):
		return fileTypeK8s
	case strings.HasSuffix(filename, ".service"):
		return fileTypeSystemd
	case strings.HasSuffix(filename, ".sh") || strings.HasSuffix(filename, ".bash"):
		return fileTypeShell
	default:
		// Unknown names are read as dotenv
		return fileTypeEnv
	}
}

// isDotEnvName matches .env and .env.<suffix>, not other dotfiles such as .envinject.yaml
func isDotEnvName(filename string) bool {
	return filename == ".env" || strings.HasPrefix(filename, ".env.")
}

// parseEnvFile parses a single environment file using the appropriate parser
func parseEnvFile(path string) ([]variables.Pair, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var vars map[string]string
	switch detectFileType(path) {
	case fileTypeEnvrc, fileTypeShell:
		vars, err = parseExports(file, path)
	case fileTypeCompose:
		vars, err = parseDockerCompose(file)
	case fileTypeK8s:
		vars, err = parseK8s(file)
	case fileTypeSystemd:
		vars, err = parseSystemd(file, path)
	default:
		vars, err = godotenv.Parse(file)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return sortedPairs(vars), nil
}

// parseExports reads `export VAR=value` lines, ignoring every other shell or direnv statement
func parseExports(file *os.File, path string) (map[string]string, error) {
	vars := make(map[string]string)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := exportLine.FindStringSubmatch(line); len(m) == 3 {
			vars[m[1]] = trimQuotes(m[2])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return vars, nil
}

// composeFile is the part of a docker-compose file that carries variables.
// environment may be a mapping or a list of KEY=VALUE strings.
type composeFile struct {
	Services map[string]struct {
		Environment yaml.Node `yaml:"environment"`
	} `yaml:"services"`
}

// parseDockerCompose collects the environment of every service
func parseDockerCompose(file *os.File) (map[string]string, error) {
	vars := make(map[string]string)

	var compose composeFile
	if err := yaml.NewDecoder(file).Decode(&compose); err != nil {
		return nil, err
	}

	for _, service := range compose.Services {
		env := service.Environment
		switch env.Kind {
		case yaml.MappingNode:
			for i := 0; i+1 < len(env.Content); i += 2 {
				vars[env.Content[i].Value] = env.Content[i+1].Value
			}
		case yaml.SequenceNode:
			for _, item := range env.Content {
				if key, value, ok := strings.Cut(item.Value, "="); ok {
					vars[strings.TrimSpace(key)] = strings.TrimSpace(value)
				}
			}
		}
	}
	return vars, nil
}

// k8sObject is a Kubernetes ConfigMap or Secret
type k8sObject struct {
	Kind       string            `yaml:"kind"`
	Data       map[string]string `yaml:"data"`
	StringData map[string]string `yaml:"stringData"`
}

// parseK8s reads ConfigMap data and Secret data (base64) or stringData
func parseK8s(file *os.File) (map[string]string, error) {
	vars := make(map[string]string)

	var obj k8sObject
	if err := yaml.NewDecoder(file).Decode(&obj); err != nil {
		return nil, err
	}

	switch obj.Kind {
	case "ConfigMap":
		for k, v := range obj.Data {
			vars[k] = v
		}
	case "Secret":
		for k, v := range obj.Data {
			decoded, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				// Use as-is if decoding fails
				vars[k] = v
				continue
			}
			vars[k] = string(decoded)
		}
		for k, v := range obj.StringData {
			vars[k] = v
		}
	}
	return vars, nil
}

// parseSystemd reads Environment=VAR=value lines of a unit file
func parseSystemd(file *os.File, path string) (map[string]string, error) {
	vars := make(map[string]string)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		m := environmentLine.FindStringSubmatch(line)
		if len(m) != 2 {
			continue
		}
		key, value, ok := strings.Cut(trimQuotes(m[1]), "=")
		key = strings.TrimSpace(key)
		if ok && key != "" {
			vars[key] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return vars, nil
}

// trimQuotes removes surrounding quotes from a string
func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') ||
			(s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

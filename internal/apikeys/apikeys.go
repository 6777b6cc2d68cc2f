package apikeys

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
	"github.com/meedamian/gptflo/internal/models"
	"github.com/meedamian/gptflo/internal/types"
)

const (
	envFile  = ".env"
	keysFile = "keys.json"
)

// familyEnvVars maps model family IDs to their environment variable names
var familyEnvVars = map[string]string{
	models.GPT:      "OPENAI_API_KEY",
	models.Claude:   "ANTHROPIC_API_KEY",
	models.Gemini:   "GEMINI_API_KEY",
	models.DeepSeek: "DEEPSEEK_API_KEY",
	models.Mistral:  "MISTRAL_API_KEY",
	models.Grok:     "XAI_API_KEY",
}

// EnvVar returns the environment variable holding the family's key
func EnvVar(familyID string) string {
	return familyEnvVars[familyID]
}

// Load resolves the API key for the model info, leaving it empty when none
// is configured
func Load(mi *types.ModelInfo) {
	if mi.APIKey != "" {
		return
	}
	mi.APIKey = ForFamily(mi.ID)
}

// ForFamily retrieves the API key for a model family from the environment,
// then .env in the working directory, then keys.json (keyed by family ID)
func ForFamily(familyID string) string {
	envVar, ok := familyEnvVars[familyID]
	if !ok {
		return ""
	}

	// Try environment variable
	if key := os.Getenv(envVar); key != "" {
		return key
	}

	// Try .env file without touching the process environment
	if env, err := godotenv.Read(envFile); err == nil {
		if key := env[envVar]; key != "" {
			return key
		}
	}

	// Try keys.json
	if file, err := os.Open(keysFile); err == nil {
		defer file.Close()
		var keys map[string]string
		if json.NewDecoder(file).Decode(&keys) == nil {
			if key, ok := keys[familyID]; ok {
				return key
			}
		}
	}

	return ""
}

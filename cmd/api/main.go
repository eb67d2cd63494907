package main

import (
	"log"
	"os"

	"github.com/levra/voicebridge/internal/api"
	"github.com/levra/voicebridge/internal/doccontext"
	"github.com/levra/voicebridge/internal/janitor"
	"github.com/levra/voicebridge/internal/pdf"
	"github.com/levra/voicebridge/internal/stores/session"
	"github.com/levra/voicebridge/internal/tokens"
	"github.com/levra/voicebridge/pkg/utils"
)

// Start the API server
func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	// Pick stores: MySQL when DATABASE_URL is set, in-memory otherwise
	var store session.Store
	var contexts pdf.ContextStore

	if dsn := cfg.Get("DATABASE_URL"); dsn != "" {
		mysqlStore, err := session.NewMySqlStore(dsn)
		if err != nil {
			log.Fatalf("[MAIN]: Failed to initialize session store: %v", err)
		}
		defer mysqlStore.Close()

		contextStore, err := pdf.NewMySqlContextStore(mysqlStore.GetDB())
		if err != nil {
			log.Fatalf("[MAIN]: Failed to initialize context store: %v", err)
		}

		store = mysqlStore
		contexts = contextStore
	} else {
		log.Println("[MAIN]: DATABASE_URL not set, using in-memory stores")
		store = session.NewInMemoryStore()
		contexts = pdf.NewInMemoryContextStore()
	}

	// Room token minting
	minter, err := tokens.NewMinter(cfg.Get("LIVEKIT_API_KEY"), cfg.Get("LIVEKIT_API_SECRET"), 0)
	if err != nil {
		log.Fatalf("[MAIN]: Failed to initialize token minter: %v", err)
	}

	// Upload policy, with optional overrides from a policy file
	policy, err := doccontext.LoadPolicy(cfg.Get("UPLOAD_POLICY_FILE"))
	if err != nil {
		log.Fatalf("[MAIN]: Failed to load upload policy: %v", err)
	}

	// Background cleanup of idle sessions
	j, err := janitor.New(cfg, store, contexts)
	if err != nil {
		log.Fatalf("[MAIN]: Failed to initialize janitor: %v", err)
	}
	j.Start()
	defer j.Stop()

	// Start
	api.Start(cfg, api.Dependencies{
		Store:     store,
		Contexts:  contexts,
		Processor: pdf.NewProcessor(),
		Minter:    minter,
		Policy:    policy,
	})
}

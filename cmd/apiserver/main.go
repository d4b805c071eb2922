// File: backend/cmd/apiserver/main.go
package main

import (
	"log"
	"net/http"
	"time"

	"github.com/phishscan/phishscan/backend/internal/analyzer"
	"github.com/phishscan/phishscan/backend/internal/api"
	"github.com/phishscan/phishscan/backend/internal/config"
	"github.com/phishscan/phishscan/backend/internal/content"
	"github.com/phishscan/phishscan/backend/internal/netprobe"
	"github.com/phishscan/phishscan/backend/internal/registration"
	"github.com/phishscan/phishscan/backend/internal/ruleset"
	"github.com/phishscan/phishscan/backend/internal/scanstore"
)

const configFilePath = "config.json"

func main() {
	appConfig, err := config.Load(configFilePath)
	if err != nil {
		log.Fatalf("CRITICAL: Configuration could not be loaded: %v", err)
	}

	if appConfig.Server.APIKey == "" || appConfig.Server.APIKey == config.DefaultSystemAPIKeyPlaceholder {
		log.Println("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!")
		log.Println("!!! WARNING: API Key is the default system placeholder. THIS IS INSECURE.       !!!")
		log.Println("!!! Please set a unique 'server.apiKey' in 'config.json' or use               !!!")
		log.Println("!!! the 'PHISHSCAN_API_KEY' environment variable for production deployments.    !!!")
		log.Println("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!")
		appConfig.Server.APIKey = config.DefaultSystemAPIKeyPlaceholder
	}

	rules, err := ruleset.Load(appConfig.RulesetPath)
	if err != nil {
		log.Fatalf("CRITICAL: Could not load ruleset: %v", err)
	}

	prober := netprobe.New(netprobe.Config{
		Resolvers:          appConfig.Resolver.Resolvers,
		UseSystemResolvers: appConfig.Resolver.UseSystemResolvers,
		QueryTimeout:       appConfig.QueryTimeout(),
		TLSTimeout:         appConfig.TLSTimeout(),
	})
	fetcher := content.NewFetcher(content.FetchConfig{
		UserAgent:      appConfig.Fetcher.UserAgent,
		RequestTimeout: appConfig.FetchTimeout(),
		MaxRedirects:   appConfig.Fetcher.MaxRedirects,
		MaxBodyBytes:   appConfig.Fetcher.MaxBodyBytes,
	})
	registry := registration.New(appConfig.RegistrationTimeout())

	engine := analyzer.New(rules, analyzer.Deps{
		Resolver:     prober,
		CertProber:   prober,
		Fetcher:      fetcher,
		Registration: registry,
	})

	store := scanstore.New(appConfig.Server.HistoryFilePath)

	router := api.NewRouter(appConfig, engine, store)
	serverAddr := ":" + appConfig.Server.Port
	httpServer := &http.Server{
		Handler:      router,
		Addr:         serverAddr,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting PhishScan API server on http://localhost%s", serverAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server ListenAndServe failed: %v", err)
	}
}

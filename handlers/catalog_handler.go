package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"p9e.in/loto/config"
	"p9e.in/loto/pkg/loto"
)

// Catalog holds the energy source schema loaded at startup. Handlers
// that parse or serialize documents share this instance.
var Catalog *loto.Catalog

// InitCatalog loads the energy source catalog from the database. Call
// after migrations and seeding have run.
func InitCatalog() error {
	cat, err := config.LoadCatalog()
	if err != nil {
		return fmt.Errorf("load energy source catalog: %w", err)
	}
	Catalog = cat
	log.Printf("📋 Loaded %d energy source types", len(cat.TypeNames()))
	return nil
}

// GetEnergySources serves the catalog in the shape the form consumes:
// a map of energy type name to its field schema, plus the display
// order so clients keep the dropdown stable.
// GET /catalog/energy-sources
func GetEnergySources(w http.ResponseWriter, r *http.Request) {
	if Catalog == nil || !Catalog.Loaded() {
		http.Error(w, "catalog not loaded", http.StatusServiceUnavailable)
		return
	}

	types := make(map[string]loto.TypeDefinition)
	order := Catalog.TypeNames()
	for _, name := range order {
		if def, ok := Catalog.Lookup(name); ok {
			types[name] = def
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"order": order,
		"types": types,
	})
}

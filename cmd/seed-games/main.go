// cmd/seed-games - Imports the game catalog from a JSON file.
//
// Usage: seed-games [path/to/games.json]
//
// The file is an array of {"name", "code", "description"} objects. Games
// are matched by code: existing entries are updated and re-activated,
// new ones are created. Games present in the database but missing from
// the file are left untouched.
package main

import (
	"encoding/json"
	"log"
	"os"

	"savepoint/database"
	"savepoint/models"

	"github.com/joho/godotenv"
)

type catalogEntry struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	path := "./data/games.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read catalog file: %v", err)
	}

	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Fatalf("Failed to parse catalog file: %v", err)
	}

	database.InitDB()
	defer database.CloseDB()
	db := database.GetDB()

	created, updated := 0, 0
	for _, entry := range entries {
		if entry.Code == "" || entry.Name == "" {
			log.Printf("Skipping entry with missing name or code: %+v", entry)
			continue
		}

		var game models.Game
		err := db.Where("code = ?", entry.Code).First(&game).Error
		if err == nil {
			db.Model(&game).Updates(map[string]interface{}{
				"name":        entry.Name,
				"description": entry.Description,
				"is_active":   true,
			})
			updated++
			continue
		}

		game = models.Game{
			Name:        entry.Name,
			Code:        entry.Code,
			Description: entry.Description,
			IsActive:    true,
		}
		if err := db.Create(&game).Error; err != nil {
			log.Fatalf("Failed to create game %s: %v", entry.Code, err)
		}
		created++
	}

	log.Printf("Catalog import done: %d created, %d updated", created, updated)
}

package main

import (
	"fmt"
	"log"
	"os"

	"post-editor-be/internal/model"
	"post-editor-be/pkg/database"
	"post-editor-be/pkg/lexical"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Usage: inspect_content <file.json | post-id>
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: inspect_content <file.json | post-id>")
	}
	arg := os.Args[1]

	var title, content string
	if id, err := uuid.Parse(arg); err == nil {
		title, content = fetchPost(id)
	} else {
		raw, err := os.ReadFile(arg)
		if err != nil {
			log.Fatal("Failed to read file:", err)
		}
		title, content = arg, string(raw)
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Printf("🔍 INSPECTING: %s\n", title)
	fmt.Printf("Raw Content Length: %d bytes\n", len(content))

	doc, err := lexical.Parse(content)
	if err != nil {
		color.Yellow("⚠ Strict parse failed: %v", err)
		color.Yellow("  Falling back to plain text document")
		doc = lexical.Deserialize(content)
	} else {
		color.Green("✔ Valid lexical document (%d nodes)", doc.Size())
	}

	header.Println("\n─ PLAIN TEXT ─")
	fmt.Println(lexical.PlainText(doc))

	header.Println("\n─ MARKDOWN ─")
	fmt.Println(lexical.Markdown(doc))

	header.Println("\n─ HTML ─")
	fmt.Println(lexical.RenderHTML(doc))
}

func fetchPost(id uuid.UUID) (string, string) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, zap.NewNop(), false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	var post model.Post
	if err := db.Where("id = ?", id).First(&post).Error; err != nil {
		log.Fatal("Post not found:", err)
	}
	return fmt.Sprintf("%s (%s)", post.Title, post.Id), string(post.Content)
}

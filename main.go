// main.go - SavePoint API server
package main

import (
	"log"
	"os"
	"time"

	"savepoint/database"
	"savepoint/handlers"
	"savepoint/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	validateEnvironment()

	database.InitDB()
	defer database.CloseDB()

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	app.Use(middleware.RateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.AuthRateLimitMiddleware())
	authGroup.Post("/register", handlers.Register)
	authGroup.Post("/login", handlers.Login)
	authGroup.Get("/me", middleware.AuthMiddleware, handlers.Me)
	authGroup.Post("/become-teacher", middleware.AuthMiddleware, handlers.BecomeTeacher)

	// Teacher challenge routes
	challengeGroup := api.Group("/challenges")
	challengeGroup.Use(middleware.AuthMiddleware)
	challengeGroup.Post("/", middleware.TeacherMiddleware, handlers.CreateChallenge)
	challengeGroup.Get("/", middleware.TeacherMiddleware, handlers.GetTeacherChallenges)
	challengeGroup.Delete("/:id", middleware.TeacherMiddleware, handlers.CancelChallenge)
	challengeGroup.Get("/:id/leaderboard", middleware.TeacherMiddleware, handlers.GetLeaderboard)

	// Student challenge routes
	challengeGroup.Post("/:id/respond", handlers.RespondInvite)
	challengeGroup.Post("/:id/score", handlers.SubmitScore)
	challengeGroup.Get("/:id/waiting-room", handlers.GetWaitingRoom)
	api.Get("/my-challenges", middleware.AuthMiddleware, handlers.GetMyChallenges)

	// Class routes
	classGroup := api.Group("/classes")
	classGroup.Use(middleware.AuthMiddleware)
	classGroup.Post("/", middleware.TeacherMiddleware, handlers.CreateClass)
	classGroup.Get("/", middleware.TeacherMiddleware, handlers.GetClasses)
	classGroup.Get("/:id/students", middleware.TeacherMiddleware, handlers.GetClassStudents)
	classGroup.Post("/:id/students", middleware.TeacherMiddleware, handlers.InviteStudent)
	classGroup.Delete("/:id/students/:studentId", middleware.TeacherMiddleware, handlers.RemoveStudent)
	classGroup.Post("/:id/respond", handlers.RespondClassInvite)

	// Notification routes
	notificationGroup := api.Group("/notifications")
	notificationGroup.Use(middleware.AuthMiddleware)
	notificationGroup.Get("/", handlers.GetNotifications)
	notificationGroup.Put("/:id/read", handlers.MarkNotificationRead)
	notificationGroup.Put("/read-all", handlers.MarkAllNotificationsRead)

	// Game routes
	gameGroup := api.Group("/games")
	gameGroup.Use(middleware.AuthMiddleware)
	gameGroup.Get("/", handlers.GetGames)
	gameGroup.Post("/sessions", handlers.StartGameSession)
	gameGroup.Put("/sessions/:token/finish", handlers.FinishGameSession)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	port := getEnv("PORT", "3000")
	log.Printf("HTTP server starting on port %s", port)
	log.Printf("Environment: %s", getEnv("APP_ENV", "development"))

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	if os.Getenv("APP_ENV") == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

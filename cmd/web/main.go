// cmd/web/main.go
package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/seguramar/quadrodeinspecao/internal/api/handlers"
	"github.com/seguramar/quadrodeinspecao/internal/api/middleware"
	"github.com/seguramar/quadrodeinspecao/internal/api/responses"
	"github.com/seguramar/quadrodeinspecao/internal/core/importacao"
	"github.com/seguramar/quadrodeinspecao/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// initDatabase abre a ligação Postgres e aplica as migrações.
func initDatabase() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=quadros password=quadros dbname=quadros port=5432 sslmode=disable"
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Erro ao ligar à base de dados: %v\n", err)
	}
	if err := repository.New(db).Migrar(); err != nil {
		log.Fatalf("Erro ao migrar o esquema: %v\n", err)
	}
	log.Println("Ligação à base de dados estabelecida")
	return db
}

func main() {
	responses.InitLogger()
	defer responses.Sync()

	db := initDatabase()
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Erro ao obter a ligação SQL: %v\n", err)
	}
	defer sqlDB.Close()

	repo := repository.New(db)
	importService := importacao.NewService(repo, responses.Logger())
	importHandler := handlers.NewImportHandler(importService)
	jangadaHandler := handlers.NewJangadaHandler(repo)

	router := gin.Default()
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(nil))
	{
		apiV1.POST("/jangadas/importar-quadro", importHandler.HandleImportarQuadro)
		apiV1.GET("/jangadas/:serie", jangadaHandler.HandleObterJangada)
		apiV1.GET("/stock", jangadaHandler.HandleListarStock)
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Servidor iniciado e escutando na porta %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Falha ao iniciar o servidor: ", err)
	}
}

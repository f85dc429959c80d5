// internal/api/responses/responses.go
package responses

import (
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

// InitLogger configura o logger global do serviço. Em desenvolvimento
// (APP_ENV=dev) usa o formato legível de consola.
func InitLogger() {
	var err error
	var l *zap.Logger
	if os.Getenv("APP_ENV") == "dev" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return
	}
	logger = l
}

// Logger devolve o logger do serviço (nunca nil).
func Logger() *zap.Logger {
	return logger
}

// Sync despeja os buffers do logger; chamar no encerramento do processo.
func Sync() {
	_ = logger.Sync()
}

// Error responde com o envelope de erro padrão da API e regista o pedido
// falhado. Nunca expõe stack traces ao cliente; os detalhes são strings
// legíveis pensadas para o utilizador.
func Error(c *gin.Context, status int, message string, details ...string) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("path", c.Request.URL.Path),
		zap.String("error", message),
	}
	if len(details) > 0 {
		fields = append(fields, zap.Strings("details", details))
	}
	logger.Warn("pedido falhou", fields...)

	payload := gin.H{"error": message}
	if len(details) > 0 {
		payload["details"] = details
	}
	c.JSON(status, payload)
}

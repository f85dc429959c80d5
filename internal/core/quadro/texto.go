// internal/core/quadro/texto.go
package quadro

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var naoAlfanumerico = regexp.MustCompile(`[^A-Z0-9 ]+`)
var espacos = regexp.MustCompile(`\s+`)

// Normalizar prepara texto para comparação insensível a acentos e maiúsculas:
// "Inspeção Visual" -> "INSPECAO VISUAL". Usada tanto na localização de
// rótulos do quadro como no cruzamento de nomes com o stock.
func Normalizar(str string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	result, _, _ := transform.String(t, str)
	result = strings.ToUpper(result)
	result = naoAlfanumerico.ReplaceAllString(result, " ")
	result = espacos.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

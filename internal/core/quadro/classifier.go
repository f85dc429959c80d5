// internal/core/quadro/classifier.go
package quadro

import "strings"

// EQuadroInspecao decide, pelo nome do ficheiro e pelos nomes das folhas, se
// o ficheiro parece ser um quadro de inspeção. É um filtro heurístico e não
// uma validação de esquema: um resultado falso deve ser tratado como
// "rejeitar com sugestão ao utilizador", nunca como erro de validação.
func EQuadroInspecao(filename string, folhas []string) bool {
	nome := Normalizar(filename)
	if strings.Contains(nome, "QUADRO") && strings.Contains(nome, "INSPE") {
		return true
	}
	for _, folha := range folhas {
		// "INSPE" cobre tanto "Inspeção" como "Inspection".
		if strings.Contains(Normalizar(folha), "INSPE") {
			return true
		}
	}
	return false
}

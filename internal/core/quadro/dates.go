// internal/core/quadro/dates.go
package quadro

import (
	"regexp"
	"strconv"
	"time"
)

var padraoDiaMesAno = regexp.MustCompile(`^\s*(\d{1,2})/(\d{1,2})/(\d{4})\s*$`)
var padraoMesAno = regexp.MustCompile(`^\s*(\d{1,2})/(\d{4})\s*$`)

// ParseDataPT interpreta datas em formato português: DD/MM/YYYY ou MM/YYYY
// (primeiro dia do mês). Quando o valor não é reconhecido devolve ok falso;
// a decisão de avisar ou rejeitar fica com quem chama.
func ParseDataPT(raw string) (time.Time, bool) {
	if m := padraoDiaMesAno.FindStringSubmatch(raw); m != nil {
		dia, _ := strconv.Atoi(m[1])
		mes, _ := strconv.Atoi(m[2])
		ano, _ := strconv.Atoi(m[3])
		if mes >= 1 && mes <= 12 && dia >= 1 && dia <= 31 {
			return time.Date(ano, time.Month(mes), dia, 0, 0, 0, 0, time.Local), true
		}
	}
	if m := padraoMesAno.FindStringSubmatch(raw); m != nil {
		mes, _ := strconv.Atoi(m[1])
		ano, _ := strconv.Atoi(m[2])
		if mes >= 1 && mes <= 12 {
			return time.Date(ano, time.Month(mes), 1, 0, 0, 0, 0, time.Local), true
		}
	}
	return time.Time{}, false
}

// DataOuHoje mantém o comportamento histórico dos quadros antigos: qualquer
// valor não reconhecido vale a data atual.
func DataOuHoje(raw string) time.Time {
	if d, ok := ParseDataPT(raw); ok {
		return d
	}
	return time.Now()
}

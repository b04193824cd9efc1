package assistant

import "strings"

// QuestionType routes a message to small talk, the capability card or
// the SQL pipeline.
type QuestionType int

const (
	QuestionData QuestionType = iota
	QuestionCasual
	QuestionMeta
)

var casualOpeners = []string{
	"oi", "olá", "ola", "hey", "hi", "hello",
	"bom dia", "boa tarde", "boa noite", "bom diaa",
	"tudo bem", "como vai", "como está", "beleza", "e aí", "eai",
	"obrigado", "obrigada", "valeu", "vlw", "brigadão", "brigado",
	"tchau", "até logo", "falou", "até mais", "flw",
	"legal", "bacana", "show", "top", "massa", "dahora",
}

var metaKeywords = []string{
	"quem é você", "quem você é", "quem voce é", "quem voce e",
	"o que você faz", "o que voce faz", "para que serve",
	"sua função", "sua individualidade", "se apresente",
	"seu papel", "sua especialidade", "quem és",
	"qual é seu nome", "qual e seu nome",
	"o que você consegue fazer", "suas capacidades específicas",
	"como você funciona internamente", "que tipo de pergunta",
}

// Classify decides how to answer. Anything that is neither a greeting
// nor a question about the assistant itself goes down the data path.
func Classify(question string) QuestionType {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, c := range casualOpeners {
		if q == c || strings.HasPrefix(q, c) {
			return QuestionCasual
		}
	}
	for _, m := range metaKeywords {
		if strings.Contains(q, m) {
			return QuestionMeta
		}
	}
	return QuestionData
}

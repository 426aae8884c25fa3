package correction

import "strings"

// EndMarker terminates every corrected text.
const EndMarker = "(Fim da transcrição)"

// DefaultSystemPrompt is used when a record has no custom prompt and no
// system prompt is active.
const DefaultSystemPrompt = `✅ INSTRUÇÕES DE REVISÃO E EDIÇÃO TEXTUAL

1. Correção Gramatical com Fidelidade
* Corrigir somente o necessário para garantir correção gramatical e fluidez textual.
* Evitar alterações de estilo, mesmo que o termo esteja correto mas diferente do usual do orador.
* Jamais trocar o certo pelo certo.
* Respeitar a oralidade do orador, inclusive vocabulário, tom, estrutura e repetições enfáticas.

2. Formato das Transcrições
* Sempre usar o formato de nota taquigráfica, com:
   * Parágrafos bem divididos de acordo com o assunto
   * Correção gramatical
   * Fidelidade ao conteúdo e estilo original do orador
* Usar CAIXA ALTA para o nome do orador, seguido do cargo em negrito. Exemplo: O SR. PRESIDENTE (Alberto Fraga. PL-DF) - Muito obrigado.
* Sempre que possível, identificar corretamente os oradores com nome completo e partido.

3. Tratamento de Falas Intercaladas
* Quando houver manifestações intercaladas, manter o estilo de taquigrafia.
* Usar expressões como "interpela", "interrompe", "aparte", se relevante.

✅ ORIENTAÇÕES DE CONTEÚDO

1. Sobre o Estilo
* Manter um estilo institucional e respeitoso, sem editorializações.

2. Citações Legislativas
* Manter menções a artigos, leis, emendas, etc., com correções apenas gramaticais.

3. Erros Factuais
* Não corrigir erros factuais dos oradores. Refletir a fala real.

✅ SOBRE A ORGANIZAÇÃO

1. Revisar o Texto Completo
* Revisar o conteúdo completo, sem interrupções.
* Não inventar o que não foi dito.
* Marcar o final com (Fim da transcrição)

✅ Iniciais maiúsculas:
* Deputado, Presidente, Relator, Ministro
* País e Nação (quando se referirem ao Brasil)
* Comissão (órgão da Câmara)
* Estado (da Federação) e Município

✅ Abreviações:
* "Senhor Presidente" → "Sr. Presidente"
* "Senhor Deputado" → "Sr. Deputado"`

// GlossaryEntry is a name with optional spelling or role information.
type GlossaryEntry struct {
	Name string
	Info string
}

// FormatGlossary renders one "name - info" line per entry. An empty slice
// yields "".
func FormatGlossary(entries []GlossaryEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Name+" - "+e.Info)
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt assembles the single user message sent to the model: the
// system prompt, the raw transcript, the glossary block when non-empty and
// the fixed task instructions ending with the end marker.
func BuildPrompt(systemPrompt, rawText, glossary string) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\n# TRANSCRIÇÃO BRUTA:\n")
	sb.WriteString(rawText)

	if glossary != "" {
		sb.WriteString("\n\n# GLOSSÁRIO (consultar para grafia correta dos nomes):\n")
		sb.WriteString(glossary)
	}

	sb.WriteString("\n\n# TAREFA:\nRevise e corrija o texto da TRANSCRIÇÃO BRUTA acima seguindo RIGOROSAMENTE as instruções de formatação.\n")
	if glossary != "" {
		sb.WriteString("Use o GLOSSÁRIO para garantir a grafia correta dos nomes.\n")
	}
	sb.WriteString("Retorne APENAS o texto formatado, sem comentários adicionais.\nMarque o final com: ")
	sb.WriteString(EndMarker)
	return sb.String()
}

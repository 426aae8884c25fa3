package llm

import "context"

// Complete sends system and user prompts and returns the text response. It
// accepts any Provider, so wrapped and composed providers work as well.
func Complete(ctx context.Context, p Provider, system, user string) (string, error) {
	resp, err := p.Execute(ctx, CompletionRequest{
		SystemPrompt: system,
		Messages:     UserMessage(user),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

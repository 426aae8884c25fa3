// Package httpclient is the HTTP client shared by the speech-to-text and
// language-model providers.
//
// Every failure is returned as a classified *Error: transport timeouts as
// ErrCodeTimeout, other transport failures as ErrCodeConnection and non-2xx
// responses by status code. Callers classify with errors.As or the Is*
// helpers instead of matching message text.
//
//	client, _ := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.groq.com/openai/v1",
//	    Auth:    httpclient.BearerAuth(key),
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//	var out result
//	err := client.DoJSON(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/audio/transcriptions",
//	    Body:   &httpclient.MultipartBody{...},
//	}, &out)
package httpclient

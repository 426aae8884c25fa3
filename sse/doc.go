// Package sse streams transcription progress to browsers with Server-Sent
// Events.
//
// A Hub routes frames to the clients subscribed to a topic. Clients watching
// one transcription subscribe to "transcription:<id>", which is where the
// Hub's Publish (an events.Publisher) sends that record's events.
//
//	hub := sse.NewHub()
//	go hub.Run()
//	router.GET("/api/transcriptions/:id/events", func(c *gin.Context) {
//		sse.ServeSSE(hub, c.Writer, c.Request, sse.TranscriptionTopic(id))
//	})
package sse

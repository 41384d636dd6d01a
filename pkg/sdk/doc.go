// Package sessiond provides an embedded Go client for the session resource
// governor backed by Redis.
//
// Every conversation session carries a wall-clock budget and a token budget.
// The clock only runs while the session is active, pauses stop it, and every
// model exchange is settled against the token budget with a reserve and
// reconcile bracket.
//
//	client, _ := sessiond.New(ctx,
//	    sessiond.WithRedis("localhost:6379", ""),
//	    sessiond.WithOpenAI(apiKey, "", "gpt-4o-mini"),
//	)
//	defer client.Close()
//
//	s, _ := client.CreateSession(ctx, sessiond.SessionParams{
//	    TimeLimit:   45 * time.Minute,
//	    TokenBudget: 50000,
//	})
//	_, _ = client.StartSession(ctx, s.ID)
//	res, _ := client.SendMessage(ctx, s.ID, "walk me through your design")
package sessiond

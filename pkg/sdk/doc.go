// Package courtside embeds the tennis match search pipeline in a Go program
// without running the HTTP server. It reads a match index that ingestion has
// already built in Redis 8+ or Valkey with the search module.
//
//	client, _ := courtside.New(ctx,
//	    courtside.WithRedis("localhost:6379", ""),
//	    courtside.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "", "text-embedding-3-small"),
//	)
//	defer client.Close()
//
//	res, _ := client.Search(ctx, "Who won Wimbledon in 2019?", 5)
//	for _, m := range res.Matches {
//	    fmt.Println(m.WinnerName, "def.", m.LoserName, m.Score)
//	}
//
// Questions naming several years are answered per year, in the order the
// years appear in the question:
//
//	res, _ = client.Search(ctx, "Wimbledon finals 2015 and 2016", 10)
//
// With a chat model configured the client also composes answers:
//
//	client, _ = courtside.New(ctx, ..., courtside.WithChatModel(key, "", "gpt-4o-mini"))
//	ans, _ := client.Answer(ctx, "Djokovic vs Federer on grass")
package courtside

// Package eulex embeds the EU law retrieval pipeline in a Go program.
//
// The client loads a corpus of laws, ranks them with BM25 over law bodies
// and titles, fuses both rankings, fetches the full texts of the best
// candidates, keeps the articles that are semantically close to the
// question and assembles them into a bounded context for a language model.
//
//	client, _ := eulex.New(ctx,
//	    eulex.WithCorpus("data/eurlex"),
//	    eulex.WithBoltCache("data/cache/laws.db"),
//	    eulex.WithEmbeddingProvider("https://api.jina.ai/v1", key, "jina-embeddings-v2-small-en"),
//	)
//	defer client.Close()
//
//	laws, _ := client.Search(ctx, "toy safety requirements")
//	ctxt, _ := client.Context(ctx, "Which safety rules apply to toys?")
//	fmt.Println(ctxt.Text)
//
// Configure a chat model with WithLLM to rewrite questions before search
// and to answer them with Ask.
package eulex

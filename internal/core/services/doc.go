// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services:
//   - SearchService: the query engine fanning out to shards and Kiwix
//   - AnswerSynthesizer: optional LLM answers over the top hits
//   - IndexService: incremental indexing passes and watch mode
//   - SourceService: searchable source listing
//   - Scheduler: catalog refresh and periodic reindexing
package services

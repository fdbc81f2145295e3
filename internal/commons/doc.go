// Package commons resolves Wikimedia Commons file titles into downloadable
// descriptors.
//
// Titles are looked up in batches through the MediaWiki query API
// (prop=imageinfo). Results are matched to the requested titles by name,
// following the API's normalization table, and every title yields either a
// fetch.Descriptor or an outcome.ResolutionFailure. Requests share the run's
// fetch.Gate and are paced by a token bucket.
package commons

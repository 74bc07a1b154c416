// Package httputil provides the HTTP plumbing of dataset acquisition.
//
// # Client
//
// [Client] issues GET requests and classifies the result: transport
// failures, 5xx and 429 responses come back wrapped in [RetryableError], a
// 404 is FILE_NOT_FOUND, and every request is reported to the registered
// [observability.HTTPHooks].
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff, but only while it
// fails with a [RetryableError]:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    data, err = client.Get(ctx, url)
//	    return err
//	})
//
// # Cache
//
// [Cache] keeps JSON snapshots of fetched resources, such as a parsed remote
// dataset index, under ~/.cache/graphprep/http with a TTL. Use
// [Cache.Namespace] to keep sources apart.
package httputil

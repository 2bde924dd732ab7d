// Package batch reconciles many inputs at once.
//
// Inputs are processed in chunks with a bounded number of concurrent items per
// chunk. Results keep the request's order and length: every slot holds either
// a record or a per-item error, and one item's failure never cancels its
// siblings. When the batch deadline passes, finished items keep their results
// and everything else is reported as a timeout.
package batch

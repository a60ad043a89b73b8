// Package usecase implements the video manager operations: multi-upload, edit,
// delete, listing and search, and the post-process task run by the queue consumer.
//
// Form validation failures are returned as FormErrors values. Only infrastructure
// failures and the domain sentinels (not found, permission denied) are errors.
package usecase

// Package attachment accepts evidence files for reports and keeps them in an
// object [Store].
//
// An [Uploader] applies the upload policy (extension allow-list and size
// cap), sanitises the client file name, sniffs the content type from the
// leading bytes with github.com/gabriel-vasile/mimetype and writes the object
// under a timestamped name. Two stores ship with the package: [LocalStore]
// for a directory on disk and [MinioStore] for MinIO or any S3 endpoint.
package attachment

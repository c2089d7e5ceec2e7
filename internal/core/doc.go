// Package core provides the business logic for custom field imports.
//
// The package holds all domain logic independent of the web layer. The HTTP
// handlers translate a form post into an [UploadRequest] and render the
// returned [UploadResult]; everything in between happens here.
//
// # Batch Flow
//
// [Service.ProcessUpload] handles one uploaded CSV:
//
//  1. Reject the batch if there is no file or the token is blank
//  2. Take a slot from the [UploadLimiter]
//  3. Wrap the file with BOM skipping and UTF-8 sanitization
//  4. For every data row, in file order, run the [RowValidator]
//  5. Send valid rows through the [Submitter], one request at a time
//
// Each row contributes exactly one line to the result. Rows never abort the
// batch; only a malformed CSV stops processing early.
//
// # Submission
//
// The [Submitter] treats any received response as final. A 2xx is a created
// field, anything else is reported with its status and body. Only transport
// failures are retried, with a fixed delay and a bounded attempt count.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - CRM001-CRM003: CRM transport errors (refused, DNS, timeout)
//   - FILE001-FILE005: File errors (size, format, empty)
//   - UPL002-UPL004: Upload errors (busy, cancelled)
//   - RATE001: Inbound rate limiting
package core

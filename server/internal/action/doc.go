// Package action routes console requests to named operations.
//
// Requests under the mount prefix have the form
//
//	<prefix>/<action>[/<operation>]
//
// The action segment selects a registered Action by its URL. The optional
// operation segment must match ^[A-Za-z0-9_]+$ and name an entry in the
// action's static operation table; anything else (no segment, an invalid
// name, an unknown name) runs the action's default operation.
//
// Registered actions:
//
//	/excel, /excel97      default | paging | sheet   download .xlsx / .xls
//	/pdf, /word           default                    download .pdf / .docx
//	/preview              default | loadData         HTML document / one page as JSON
//	/designer             savePreviewData | removePreviewData
//
// Parameters starting with "_" are reserved: _u is the file token (or "p" for
// the cached preview), _n an explicit download name, _i a preview page index.
// All other parameters are forwarded to the report builder.
package action

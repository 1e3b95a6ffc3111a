// Package extract implements driven.ContentExtractor.
//
// The format is chosen by file extension: plain text, HTML, Office Open XML
// (docx, xlsx, pptx) and PDF. Unknown binary formats yield no text.
package extract

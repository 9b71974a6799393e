// Package processor provides content processing implementations.
package processor

import "github.com/ZaguanLabs/transflow"

// ContentProcessor is an alias to the main package interface.
type ContentProcessor = transflow.ContentProcessor

// TextNode is an alias to the main package type.
type TextNode = transflow.TextNode

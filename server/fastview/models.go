// fastview implements a builder pattern for simple server-side views:
// given an input data model, convert it to a view-model, multiplex the view-model
// to one or more views, and publish the views' element updates to web clients.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attrib keys or 'textContent', values are the strings to which these are set.
	// Example: ('x','123') means 'set attribute 'x' to 123. 'textContent' is a reserved key:
	// ('textContent','abc') means 'set ele.textContent to abc'.
	Ops []Op
}

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// ViewComponent is a server side view: Parse adds its initial form to a page template,
// and Updates returns the chan by which its ele-updates are notified.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse adds the view-component's definition to the parent template, inheriting its
	// func-map, and returns the name of the defined template.
	Parse(*template.Template) (string, error)
}

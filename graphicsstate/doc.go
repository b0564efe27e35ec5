// Package graphicsstate tracks the parts of the PDF graphics state that
// matter for locating text and images on a page: the current transformation
// matrix, the text state and the q/Q stack.
//
//	gs := graphicsstate.New()
//	for _, op := range ops {
//	    if gs.Apply(op) {
//	        continue
//	    }
//	    // text showing, XObjects, ...
//	}
//
// Colours, line styles and clipping are ignored.
package graphicsstate

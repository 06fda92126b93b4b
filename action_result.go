package kernel

// ActionResult is what a controller action returns. It is one of Body,
// UseDefaultResponse or Respond. A nil ActionResult behaves like
// UseDefaultResponse.
type ActionResult interface {
	actionResult()
}

// BodyResult sets the shared response's content.
type BodyResult string

func (BodyResult) actionResult() {}

// DefaultResponseResult returns the shared response as the action left it.
type DefaultResponseResult struct{}

func (DefaultResponseResult) actionResult() {}

// CustomResponseResult replaces the shared response entirely.
type CustomResponseResult struct {
	Response *Response
}

func (CustomResponseResult) actionResult() {}

// Body returns a result that becomes the content of the shared response.
func Body(content string) ActionResult {
	return BodyResult(content)
}

// UseDefaultResponse returns a result that keeps the shared response as is,
// for actions that wrote to it directly.
func UseDefaultResponse() ActionResult {
	return DefaultResponseResult{}
}

// Respond returns a result carrying a response built by the action.
func Respond(resp *Response) ActionResult {
	return CustomResponseResult{Response: resp}
}

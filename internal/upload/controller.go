package upload

import "context"

// Surface is the part of a front end the controller drives directly.
type Surface interface {
	// OpenPicker shows the file picker. Its result arrives as a Change
	// event on TargetFileInput.
	OpenPicker()
	// ClearFileInput forgets whatever the picker last selected.
	ClearFileInput()
}

// Controller owns the session of one front end and wires the workflow
// operations to its events.
type Controller struct {
	client  *Client
	surface Surface
	session Session

	// attempt identifies the latest conversion. Convert and reset bump it,
	// so a reply from an older request is dropped.
	attempt uint64
}

// NewController returns a controller with a fresh session. surface may be nil.
func NewController(client *Client, surface Surface) *Controller {
	return &Controller{
		client:  client,
		surface: surface,
		session: NewSession(),
	}
}

// Session returns the current session.
func (c *Controller) Session() Session {
	return c.session
}

// Apply runs a transition returned by a task.
func (c *Controller) Apply(t Transition) {
	if t != nil {
		c.session = t(c.session)
	}
}

// Bind registers every workflow handler on src.
func (c *Controller) Bind(src EventSource) {
	src.On(DragEnter, TargetDropZone, c.dragEnter)
	src.On(DragLeave, TargetDropZone, c.dragLeave)
	src.On(Drop, TargetDropZone, c.drop)

	src.On(Click, TargetClickHere, c.openPicker)
	src.On(Change, TargetFileInput, c.selectFiles)

	src.On(Change, TargetGenerateTOC, c.setTOC)
	src.On(Change, TargetHighlightStyle, c.setHighlightStyle)

	src.On(Click, TargetConvert, c.convert)
	src.On(Click, TargetReset, c.reset)
	src.On(Click, TargetDownload, c.download)
	src.On(Click, TargetNewConvert, c.reset)
	src.On(Click, TargetRetry, c.reset)
}

func (c *Controller) dragEnter(Event) Task {
	c.session.DropActive = true
	return nil
}

func (c *Controller) dragLeave(Event) Task {
	c.session.DropActive = false
	return nil
}

func (c *Controller) drop(ev Event) Task {
	c.session.DropActive = false
	c.session = c.client.SelectFile(c.session, ev.Files)
	return nil
}

func (c *Controller) openPicker(Event) Task {
	if c.surface != nil {
		c.surface.OpenPicker()
	}
	return nil
}

func (c *Controller) selectFiles(ev Event) Task {
	c.session = c.client.SelectFile(c.session, ev.Files)
	return nil
}

func (c *Controller) setTOC(ev Event) Task {
	c.session.Options.GenerateTOC = ev.Checked
	return nil
}

func (c *Controller) setHighlightStyle(ev Event) Task {
	if IsHighlightStyle(ev.Value) {
		c.session.Options.HighlightStyle = ev.Value
	}
	return nil
}

func (c *Controller) convert(Event) Task {
	s, sub := c.client.BeginConvert(c.session)
	c.session = s
	if sub == nil {
		return nil
	}
	c.attempt++
	attempt := c.attempt
	submission := *sub
	return func(ctx context.Context) Transition {
		out := c.client.Submit(ctx, submission)
		return func(s Session) Session {
			if attempt != c.attempt || s.Panel != PanelProgress {
				return s
			}
			return c.client.FinishConvert(s, out)
		}
	}
}

func (c *Controller) download(Event) Task {
	s, link := c.client.BeginDownload(c.session)
	c.session = s
	if link == nil {
		return nil
	}
	l := *link
	return func(ctx context.Context) Transition {
		err := c.client.Fetch(ctx, l)
		return func(s Session) Session {
			s.Status = downloadStatus(l.Filename, err)
			return s
		}
	}
}

func (c *Controller) reset(Event) Task {
	c.attempt++
	c.session = c.client.Reset(c.session)
	if c.surface != nil {
		c.surface.ClearFileInput()
	}
	return nil
}

package request

// Handlers run with promise semantics: a failure skips every success hook and
// lands on the next error hook, and an error hook that recovers hands control
// back to the success hooks that follow it.

type requestHandler struct {
	fulfilled func(Config) (Config, error)
	rejected  func(error) error
	// fromClient marks the constructor-supplied slot, the one call-scoped
	// interceptors replace.
	fromClient bool
}

type responseHandler struct {
	fulfilled  func(any) (any, error)
	rejected   func(error) (any, error)
	fromClient bool
}

type chain struct {
	request  []requestHandler
	response []responseHandler
}

func (c *chain) useRequest(fulfilled func(Config) (Config, error), rejected func(error) error, fromClient bool) {
	c.request = append(c.request, requestHandler{fulfilled: fulfilled, rejected: rejected, fromClient: fromClient})
}

func (c *chain) useResponse(fulfilled func(any) (any, error), rejected func(error) (any, error), fromClient bool) {
	c.response = append(c.response, responseHandler{fulfilled: fulfilled, rejected: rejected, fromClient: fromClient})
}

// runRequest threads cfg through the request handlers.
func (c *chain) runRequest(cfg Config, scoped *Interceptors) (Config, error) {
	var err error
	for _, h := range c.request {
		fulfilled, rejected := h.fulfilled, h.rejected
		if h.fromClient && scoped != nil {
			if scoped.OnRequest != nil {
				// already applied before normalization
				fulfilled = nil
			}
			if scoped.OnRequestError != nil {
				rejected = scoped.OnRequestError
			}
		}

		switch {
		case err == nil && fulfilled != nil:
			next, ferr := fulfilled(cfg)
			if ferr != nil {
				err = ferr
				continue
			}
			cfg = next
		case err != nil && rejected != nil:
			err = rejected(err)
		}
	}
	return cfg, err
}

// runResponse threads the transport outcome through the response handlers.
func (c *chain) runResponse(result any, err error, scoped *Interceptors) (any, error) {
	for _, h := range c.response {
		fulfilled, rejected := h.fulfilled, h.rejected
		if h.fromClient && scoped != nil {
			if scoped.OnResponse != nil {
				// applied by the client once the chain settles
				fulfilled = nil
			}
			if scoped.OnResponseError != nil {
				rejected = scoped.OnResponseError
			}
		}

		switch {
		case err == nil && fulfilled != nil:
			result, err = fulfilled(result)
		case err != nil && rejected != nil:
			result, err = rejected(err)
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

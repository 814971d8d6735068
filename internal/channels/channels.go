package channels

import (
	"sync"

	"github.com/AbdulWasayUl/go-weather-chat/models"
)

type Channels struct {
	DataRequest chan models.DataRequest
	WG          *sync.WaitGroup
}

func New() *Channels {
	const bufferSize = 100
	return &Channels{
		DataRequest: make(chan models.DataRequest, bufferSize),
		WG:          &sync.WaitGroup{},
	}
}

// Submit counts the request as pending before queueing it, so WG.Wait
// cannot return while the request is still sitting in the buffer.
func (c *Channels) Submit(req models.DataRequest) {
	c.WG.Add(1)
	c.DataRequest <- req
}

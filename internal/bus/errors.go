package bus

import "errors"

// ErrNoMessage is returned by Receiver.Poll when no envelope is
// currently queued. It is not an error condition the caller should log;
// actors are expected to poll on their own cadence and treat this as
// "nothing to do this tick".
var ErrNoMessage = errors.New("bus: no message")

// ErrShutdown is returned by Receiver.Poll once the actor's shared
// shutdown flag has been set, or the underlying channel has been
// closed. It signals the actor's run loop to exit.
var ErrShutdown = errors.New("bus: shutdown")

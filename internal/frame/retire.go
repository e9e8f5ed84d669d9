package frame

import "github.com/gogpu/wgpu/hal"

// retired is the per-frame GPU state that must outlive the submission.
type retired struct {
	index uint64
	cmd   hal.CommandBuffer
	view  hal.TextureView
}

// retireQueue frees command buffers and surface views once the queue
// reports their submission complete. Entries are appended in submission
// order, so retiring stops at the first pending one.
type retireQueue struct {
	entries []retired
}

func (q *retireQueue) push(r retired) {
	q.entries = append(q.entries, r)
}

// retire frees every entry whose submission index is <= completed and
// returns how many were freed.
func (q *retireQueue) retire(device hal.Device, completed uint64) int {
	n := 0
	for n < len(q.entries) && q.entries[n].index <= completed {
		free(device, q.entries[n])
		n++
	}
	if n == 0 {
		return 0
	}
	rest := copy(q.entries, q.entries[n:])
	clear(q.entries[rest:])
	q.entries = q.entries[:rest]
	return n
}

// drain frees everything regardless of completion. The caller must have
// waited for the device to go idle.
func (q *retireQueue) drain(device hal.Device) {
	for _, r := range q.entries {
		free(device, r)
	}
	clear(q.entries)
	q.entries = q.entries[:0]
}

func (q *retireQueue) len() int { return len(q.entries) }

func free(device hal.Device, r retired) {
	if r.cmd != nil {
		device.FreeCommandBuffer(r.cmd)
	}
	if r.view != nil {
		device.DestroyTextureView(r.view)
	}
}

package capture

import "context"

// Run opens a live capture on iface filtered by serverIP, writes it to
// outPath, and blocks until ctx is cancelled. It is the default
// engine.CaptureFunc; tests substitute a fake that materializes a
// pre-built capture file instead of opening a live packet socket.
func Run(ctx context.Context, iface, serverIP, outPath string) error {
	task := NewTask(iface, serverIP, outPath)
	if err := task.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return task.Wait()
}

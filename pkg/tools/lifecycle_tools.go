// ABOUTME: Checkout, checkin and cancel-checkout tools
// ABOUTME: Lock state comes from the repository; working files are a convenience only

package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/lifecycle"
	"github.com/nainya/contentmcp/pkg/workspace"
)

// CheckoutDocument locks a document for the caller and optionally downloads a working file
func (f *Facade) CheckoutDocument(ctx context.Context, in CheckoutDocumentInput) (*CheckoutOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	ref, err := nodeRef("node_id", in.NodeID)
	if err != nil {
		return nil, err
	}
	co, err := f.lc.Checkout(ctx, ref)
	if err != nil {
		return nil, err
	}
	out := &CheckoutOutput{
		NodeID:        co.NodeID.String(),
		WorkingCopyID: co.WorkingCopy.String(),
		Owner:         co.Owner,
		State:         lifecycle.CheckedOutByCaller.String(),
	}
	name := ref.String()
	if co.Node != nil {
		name = co.Node.Name
	}
	out.Summary = fmt.Sprintf("Checked out %s (%s) for %s", name, ref, co.Owner)

	if !flagOrDefault(in.DownloadForEditing, true) {
		return out, nil
	}
	if f.ws == nil {
		out.Summary += "\nNo workspace configured; working file not downloaded"
		return out, nil
	}
	content, err := f.repo.GetContent(ctx, ref)
	if err == nil {
		var entry workspace.Entry
		entry, err = f.ws.SaveCheckout(ref.String(), content.Name, content.Data)
		if err == nil {
			out.LocalPath = entry.Path
			out.Summary += fmt.Sprintf("\nWorking file: %s (%s)", entry.Path, formatSize(entry.SizeBytes))
			return out, nil
		}
	}
	// The lock is held either way; report the download failure alongside it.
	f.log.Warn().Err(err).Str("node_id", ref.String()).Msg("checkout download failed")
	out.DownloadError = err.Error()
	out.Summary += "\nThe document is checked out but the working file could not be downloaded: " + err.Error()
	return out, nil
}

// CheckinDocument creates a version from new content and releases the caller's lock
func (f *Facade) CheckinDocument(ctx context.Context, in CheckinDocumentInput) (*CheckinOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	ref, err := nodeRef("node_id", in.NodeID)
	if err != nil {
		return nil, err
	}
	data, from, err := f.checkinContent(ref.String(), in.FilePath)
	if err != nil {
		return nil, err
	}
	var content io.Reader
	if data != nil {
		content = bytes.NewReader(data)
	}
	rec, err := f.lc.Checkin(ctx, ref, lifecycle.CheckinInput{
		Comment: in.Comment,
		Major:   in.MajorVersion,
		Content: content,
	})
	if err != nil {
		return nil, err
	}
	f.forget(ref.String())

	kind := "minor"
	if rec.Major {
		kind = "major"
	}
	summary := fmt.Sprintf("Checked in %s as %s version %s", ref, kind, rec.Label)
	if from != "" {
		summary += "\nContent from: " + from
	} else {
		summary += "\nContent unchanged"
	}
	if rec.Comment != "" {
		summary += "\nComment: " + rec.Comment
	}
	return &CheckinOutput{
		Summary:      summary,
		NodeID:       ref.String(),
		VersionLabel: rec.Label,
		Major:        rec.Major,
		Comment:      rec.Comment,
		ContentFrom:  from,
		State:        lifecycle.Available.String(),
	}, nil
}

// checkinContent reads explicit content, else the tracked working file, else nothing
func (f *Facade) checkinContent(nodeID, filePath string) ([]byte, string, error) {
	path := filePath
	if path == "" && f.ws != nil {
		entry, err := f.ws.Lookup(nodeID)
		switch {
		case errors.Is(err, workspace.ErrNotTracked):
			return nil, "", nil
		case err != nil:
			return nil, "", faults.Internal("reading the checkout manifest", err)
		}
		path = entry.Path
	}
	if path == "" {
		return nil, "", nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", faults.Validation("cannot read content file %s", path).WithDetails(err.Error())
	}
	defer file.Close()
	data, err := f.readLimited(file)
	if err != nil {
		if faults.KindOf(err) == faults.KindValidation {
			return nil, "", err
		}
		return nil, "", faults.Validation("cannot read content file %s", path).WithDetails(err.Error())
	}
	return data, path, nil
}

// CancelCheckout releases the caller's lock without creating a version
func (f *Facade) CancelCheckout(ctx context.Context, in CancelCheckoutInput) (*CancelCheckoutOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	ref, err := nodeRef("node_id", in.NodeID)
	if err != nil {
		return nil, err
	}
	if err := f.lc.CancelCheckout(ctx, ref); err != nil {
		return nil, err
	}
	cleaned := f.forget(ref.String())
	summary := fmt.Sprintf("Cancelled checkout of %s; no version was created", ref)
	if cleaned {
		summary += "\nLocal working file removed"
	}
	return &CancelCheckoutOutput{
		Summary:   summary,
		NodeID:    ref.String(),
		State:     lifecycle.Available.String(),
		CleanedUp: cleaned,
	}, nil
}

// forget drops the working file of a released node. Failures are logged only.
func (f *Facade) forget(nodeID string) bool {
	if f.ws == nil {
		return false
	}
	if _, err := f.ws.Lookup(nodeID); err != nil {
		return false
	}
	if err := f.ws.Forget(nodeID); err != nil {
		f.log.Warn().Err(err).Str("node_id", nodeID).Msg("failed to remove working file")
		return false
	}
	return true
}

/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/go-logr/logr"

	"github.com/mikelane/selfdestruct/internal/errdefs"
)

// translate classifies the error of a failed SDK call and adds the HTTP status
// and error code to its message. Failures other than NotFound are logged at the
// default level; NotFound is often expected and only logged at V(1).
func translate(ctx context.Context, err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return errdefs.External(err, "%s", msg)
	}

	logger := logr.FromContextOrDiscard(ctx).WithValues("status", respErr.StatusCode, "code", respErr.ErrorCode)
	msg = fmt.Sprintf("%s (HTTP %d, %s)", msg, respErr.StatusCode, respErr.ErrorCode)
	if respErr.StatusCode == http.StatusNotFound {
		logger.V(1).Info("Management API call failed", "error", msg)
		return errdefs.Wrap(errdefs.KindNotFound, err, "%s", msg)
	}
	logger.Info("Management API call failed", "error", msg)
	return errdefs.External(err, "%s", msg)
}

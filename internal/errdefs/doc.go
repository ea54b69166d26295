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

// Package errdefs defines the error taxonomy shared by the self-destruct packages.
//
// Every error that crosses a package boundary is an *Error carrying a Kind and,
// where the caller may want to branch on the exact condition, a Reason:
//
//	if errdefs.ReasonOf(err) == errdefs.ReasonAlreadyConfigured {
//	    // suggest --force
//	}
//
// Kinds determine when an error is raised. InvalidInput, ConfigurationError and
// UnsupportedOperation are detected before any remote mutation. AuthorizationError
// and ExternalServiceError raised while scheduling a freshly created resource are
// reported as warnings by the interception pipeline. NotFoundError on disarm is a
// hard failure.
package errdefs

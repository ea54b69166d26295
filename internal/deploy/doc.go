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

// Package deploy schedules deletion by deploying a Logic App workflow next to
// the target.
//
// The workflow fires once the deadline passes and issues an authenticated DELETE
// against the target's management URI. Deployment and workflow share a
// deterministic name derived from the target, so arming the same target again
// updates the existing workflow in place (incremental mode) instead of adding a
// second one.
//
// Two template variants exist, selected by Mode:
//
//   - Delegated: the workflow authenticates with the stored service principal.
//   - ManagedIdentity: the workflow gets a system-assigned identity with
//     Contributor on the resource group.
package deploy

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

// Package pipeline intercepts a create invocation and schedules the created
// resource for deletion when it carries --self-destruct.
//
// Every invocation runs through the same ordered stages:
//
//	PreParse        detect --self-destruct, validate, compute the deadline,
//	                strip the flags and inject the self-destruct tags
//	ParseArgs       split the rewritten arguments into command words and options
//	PostArgParse    drop any remaining self-destruct options
//	Execute         run the create command
//	TransformResult unwrap the result, authorize and deploy the deletion workflow
//
// State lives in an InvocationContext that is created per invocation and never
// shared. Without --self-destruct the pipeline only passes the arguments through.
//
// Errors in PreParse abort before anything is created. Errors in TransformResult
// happen after the resource exists; they are reported as a Warning on the
// Outcome and the resource is left in place.
package pipeline

// Package ant runs Apache Ant build targets against a Salesforce org and classifies
// failed builds.
//
// A Runner builds the child environment (session token and server URL are passed to
// the child only), launches either the ant binary (verbose) or the quiet wrapper
// script, streams every output line to the logger in emission order, and on a
// non-zero exit turns the captured output into one of three typed failures:
//
//   - *DeploymentError when the output contains "All Component Failures:"
//   - *ApexTestError when it contains "[exec] Failing Tests"
//   - *TargetError otherwise
//
// Classification is first-match-wins in that order. Each failure carries the full
// captured output. Runs are never retried here.
package ant

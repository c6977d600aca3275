// Command workdeskctl runs operator tasks against a Workdesk deployment.
package main

func main() {
	Execute()
}

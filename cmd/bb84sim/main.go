// Command bb84sim simulates BB84 key distribution, attacks it with an
// intercept-resend eavesdropper, and encrypts messages under the result.
package main

func main() {
	Execute()
}

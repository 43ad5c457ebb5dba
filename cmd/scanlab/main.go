// scanlab is a CLI for inspecting, classifying and comparing 3D scan meshes.
package main

func main() {
	Execute()
}

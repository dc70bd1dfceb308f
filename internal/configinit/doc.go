// Package configinit writes a starter configuration file for gitdirty.
package configinit
